// Package io reads classification inputs and reads and writes reports as
// JSON.
//
// # Input Format
//
// An input lists the builds of a product with their binary and source
// packages. Requirements refer to other packages by ID ("name.arch") or, if
// the name is unique, by name:
//
//	{
//	  "builds": [
//	    {
//	      "name": "zlib",
//	      "sources": [
//	        {"name": "zlib", "arch": "src", "requires": ["glibc-devel"]}
//	      ],
//	      "binaries": [
//	        {"name": "libz1", "arch": "x86_64", "requires": ["glibc.x86_64"]},
//	        {"name": "zlib-devel", "arch": "x86_64", "label": "devel",
//	         "requires": ["libz1.x86_64"]}
//	      ]
//	    }
//	  ]
//	}
//
// A package "label" names a label of the scheme. Binary labels pin the
// package, auto flavors and purposes narrow it. A build may carry
// "allow_split" for multibuild flavors and a "base_label" restricting all of
// its binaries.
//
// Use [ReadInput] to decode from any io.Reader, [ImportInput] for a file.
// [WriteInput] writes the same format, so inputs can be normalized and
// re-read.
//
// # Reports
//
// [WriteReport] and [ReadReport] (and their file variants [ExportReport]
// and [ImportReport]) serialize a [result.Report]. The report format is what
// the cache and the store hold and what the query API serves.
//
// [result.Report]: github.com/matzehuels/labeltower/pkg/result.Report
package io
