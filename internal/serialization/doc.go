// Package serialization provides the .axp file format for compiled programs.
//
// A compiled program can be saved once and linked and run many times
// without recompiling the expression:
//
//	Format Structure:
//	  [4 bytes: Magic "AXPR"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [8 bytes: Instruction count (uint64 LE)]
//	  [Instructions: fixed 48-byte records]
//	  [32 bytes: SHA-256 of everything above]
//
// Example usage:
//
//	prog, _ := program.Compile(tree, n, seeds)
//	if err := serialization.WriteFile("demo.axp", prog); err != nil {
//	    log.Fatal(err)
//	}
//
//	prog, err := serialization.ReadFile("demo.axp")
package serialization
