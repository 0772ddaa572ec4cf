// Package source reads persona corpora into documents for ingestion.
//
// Three formats are understood, chosen by file extension:
//
//   - .txt: a verse text whose first line is the source label and whose
//     remaining lines are documents, with the verse reference before the
//     first tab
//   - .csv: a dialogue table with a header row; metadata columns (by default
//     "character") become metadata and the rest become content
//   - .pdf: a screenplay split into scene headings, action blocks and
//     per-character dialogue
//
// Every source declares the metadata fields that identify a document across
// runs, for use by the identity assigner. Sources can be iterated more than
// once; each iteration re-reads the file.
package source
