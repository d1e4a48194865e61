// Package document reads llms.txt documents back into a structure.
//
// It is used to check documents that did not come from our own renderer,
// mainly text returned by the enhancement service and files passed to
// "llmsgen validate". Parsing is done with goldmark, so anything that is
// valid CommonMark is read the way any markdown tool would read it.
package document
