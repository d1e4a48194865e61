// Package pipeline runs the stages that turn an origin into an llms.txt
// document.
//
// Each origin goes through a crawl step (discover pages), a build step
// (group pages into a site map and render the document) and an optional
// enhance step (rewrite the document with an LLM). Steps share a single
// model.Run value and each fills in its part.
//
// Design decision: steps run through a pipeline rather than direct calls so
// that error handling and logging are uniform, and so a cancelled crawl
// still gets its offline steps (building the site map) run on what it
// found.
//
// The pipeline supports both single origins and batch processing with
// concurrency control using errgroup.
package pipeline
