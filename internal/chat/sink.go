package chat

// tokenSink carries tokens from the provider goroutine to the frame
// consumer for the duration of one streaming call. Single producer, single
// consumer; closing the token channel is the end-of-stream marker, and the
// done channel closes once the producer has fully returned.
type tokenSink struct {
	tokens chan string
	done   chan struct{}
}

func newTokenSink() *tokenSink {
	return &tokenSink{
		tokens: make(chan string, 64),
		done:   make(chan struct{}),
	}
}

func (s *tokenSink) Push(token string) {
	s.tokens <- token
}

// EndStream marks the end of the token sequence. Called exactly once by the
// producer, whether the provider call succeeded or not.
func (s *tokenSink) EndStream() {
	close(s.tokens)
}

// Finish signals that the producer goroutine has completed. Finalization
// must wait for this in addition to draining the tokens.
func (s *tokenSink) Finish() {
	close(s.done)
}

func (s *tokenSink) Tokens() <-chan string {
	return s.tokens
}

func (s *tokenSink) Done() <-chan struct{} {
	return s.done
}
