package voxel_grid

// Contains the minimal data needed to process a slab of the grid, i.e. all the cells sharing the same X index
type WorkUnit struct {
	Slab int
}
