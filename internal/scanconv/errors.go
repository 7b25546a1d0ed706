package scanconv

import "errors"

// ErrInvalidGeometry is returned when a geometry descriptor or grid
// segmentation cannot produce a meaningful conversion.
var ErrInvalidGeometry = errors.New("invalid scan geometry")

// ErrShapeMismatch is returned when arrays handed between stages disagree in
// shape or reference indices outside the image or canvas.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrDegenerateInterpolationPoint is returned in strict mode when an output
// point coincides with all four of its interpolation corners, leaving the
// distance weights undefined.
var ErrDegenerateInterpolationPoint = errors.New("degenerate interpolation point")
