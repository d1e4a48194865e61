// Package main provides the entry point for the llmsgen CLI.
//
// llmsgen crawls a website within an origin and page budget and writes an
// llms.txt file: a markdown index of the site's pages grouped by URL path.
//
// Usage:
//
//	llmsgen generate <url>
//	llmsgen generate <url> <url>...
//
// See --help for all available options.
package main

// main is the entry point for llmsgen.
func main() {
	Execute()
}
