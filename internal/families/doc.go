// Package families holds the element families that drive specialised
// processing: the built-in link, heading, svg and media families, custom
// families declared in CUE, and the transforms that run over them.
//
// Classification happens once, at indexing time, through the FamilyTable a
// Registry produces. The transforms in this package are ordinary pipeline
// steps; Process is the one that advances a document to the Processed phase
// and attaches each family's payload to its elements.
package families
