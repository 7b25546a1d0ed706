// Package scanconv holds the types shared by the two ultrasound scan
// conversion pipelines: acquisition geometry descriptors, grid segmentation,
// (y, x) points and the *mat.Dense image helpers both pipelines build on.
//
// All coordinates are ordered (y, x). Images are row-major with depth along
// rows (axis 0) and lateral position along columns (axis 1).
//
// The pipelines themselves live in subpackages:
//
//	sparsewarp  control-point correspondence + pluggable warp
//	interp      precompute/apply bilinear lookup tables
//	warp        the Warper interface and a thin-plate spline implementation
package scanconv
