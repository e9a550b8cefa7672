// Package fetch materializes a recipe's upstream sources.
//
// Sources fetch once into a digest-keyed cache and materialize from there
// into each build's source directory, so repeated builds of the same recipe
// never repeat a network transfer.
package fetch
