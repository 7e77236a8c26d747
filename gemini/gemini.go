// Package gemini implements [parley.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. The SDK streams through a
// synchronous iter.Seq2 iterator, which is wrapped into the pull-based
// [parley.Stream] interface so the dispatcher consumes it on its worker like
// any other provider.
package gemini

