package vm

import "sv39kernel/src/mem"

// PGSHIFT/PGSIZE/PGOFFSET mirror mem's page constants under the bare names
// the rest of this package already assumes (as.go): vm sits
// just above mem in the import graph and every page-granular computation
// here is in terms of mem's page size, so there is no reason for a second
// definition to ever drift from mem's.
const PGSHIFT = mem.PGSHIFT
const PGSIZE = mem.PGSIZE

var PGOFFSET = mem.PGOFFSET
