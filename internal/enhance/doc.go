// Package enhance rewrites a generated llms.txt document with a large
// language model.
//
// The enhancer is optional. Every failure (missing API key, quota, network,
// malformed output) is reported as an error and the caller keeps the
// document it already has. A response is accepted only when it parses back
// as an llms.txt document with a title and at least one absolute link.
package enhance
