// Package files loads the recipe dataset from a CSV table and a NumPy .npy
// embedding matrix on local disk.
package files
