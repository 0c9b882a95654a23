// Package transcripts implements the transcript sources the pipeline fetches
// session text from.
//
// Two sources exist. HTTPSource talks to a transcript service exposing
// GET {base_url}/transcripts/{id}, answering either JSON
// ({"id","title","text","date"}) or plain text. DirSource reads <id>.txt
// files from a local directory, which is convenient for manual imports and
// tests. NewFromConfig picks one based on the [transcripts] section.
package transcripts
