package loop

// Token identifies the context a request was issued in.
type Token uint64

// Epoch hands out request tokens. Advancing it supersedes every token issued before, so
// late completions can tell that the state they were meant for has moved on.
type Epoch struct {
	n uint64
}

// Begin returns the token for a request issued now.
func (e *Epoch) Begin() Token { return Token(e.n) }

// Advance supersedes all outstanding tokens.
func (e *Epoch) Advance() { e.n++ }

// Current reports whether t was issued in the current epoch.
func (e *Epoch) Current(t Token) bool { return Token(e.n) == t }
