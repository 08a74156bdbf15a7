package dataset

import (
	"path/filepath"
)

// ShelfRecord is one labeled shelf photograph
type ShelfRecord struct {
	ID        string `json:"id" parquet:"id"`
	ImagePath string `json:"image_path" parquet:"image_path"`

	// Books lists every book visible in the photograph (ground truth)
	Books []ExpectedBook `json:"books" parquet:"books,list"`

	// Notes is free text describing the shelf (lighting, angle, etc.)
	Notes string `json:"notes,omitempty" parquet:"notes,optional"`
}

// ExpectedBook is a ground truth title and author
type ExpectedBook struct {
	Title  string `json:"title" parquet:"title"`
	Author string `json:"author" parquet:"author"`
}

// ResolveImagePath returns the image path, interpreting relative paths
// against the directory holding the dataset file.
func (r *ShelfRecord) ResolveImagePath(datasetPath string) string {
	if r.ImagePath == "" || filepath.IsAbs(r.ImagePath) {
		return r.ImagePath
	}
	return filepath.Join(filepath.Dir(datasetPath), r.ImagePath)
}
