// Package docchat turns a website into a queryable knowledge base.
// It crawls a site, embeds the extracted page text into a vector index
// scoped by project, and answers natural language questions against that
// index with retrieval-augmented generation.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, gemini/, redis/).
package docchat
