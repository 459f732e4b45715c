// Package loader implements the chunked bulk load of a row source into a
// relational sink.
//
// A run has two phases. Priming reads a small number of leading rows,
// normalizes them, infers the destination schema and replaces the table with
// an empty one of that shape. Loading then pulls fixed-size batches,
// normalizes each and appends it, until a pull returns no rows.
//
// Rows read during priming are kept and become the head of the first batch,
// because a row source cannot be rewound. Every batch is one sink write;
// a failure stops the run and leaves the batches written so far in place.
//
// Run states:
//
//	not-started → priming → loading → done
//	              priming → failed
//	                        loading → failed
package loader
