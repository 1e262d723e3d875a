// Package assemble gathers the retrieval context handed to the chat model:
// the journal entries most relevant to a message and the user's latest
// conversation turns.
package assemble
