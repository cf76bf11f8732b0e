// Package domain models gridded precipitation fields and the transforms that
// turn them into canonical grids and iso-level contour polygons.
//
// # Data Sources
//
// Two kinds of grid reach this package, both as a [RawGrid]:
//
//	NOAA GFS 0.25° analysis, PRATE field, fetched through the NOMADS filter
//	service. Converted from kg m⁻² s⁻¹ to mm/hr (×3600) by the adapter.
//	Latitudes usually arrive north to south.
//
//	NASA GPM IMERG half-hourly granules read from a local directory. The
//	precipitation variable is stored (time=1, lon, lat), so the values are
//	transposed relative to the coordinates and carry a singleton time axis.
//
// # Grid Conventions
//
// A [CanonicalGrid] has ascending latitudes (south to north) as rows and
// ascending longitudes (west to east) as columns, so Values.At(i, j) is the
// sample at (Lats[i], Lons[j]). [Normalize] reaches that orientation through
// a fixed decision procedure and reports the branch it took as a
// [ShapeOutcome] so callers and metrics can see it:
//
//	(lat, lon)                 → unchanged
//	(lon, lat)                 → transposed
//	(1, lat, lon)              → squeezed
//	(1, lon, lat)              → squeezed_transposed
//	anything else              → ShapeMismatchError
//
// Non-finite samples (fill values, NaN, ±Inf) are replaced with zero before
// any other step.
//
// # Windows
//
// [SelectWindow] crops a RawGrid with label-slice semantics on whatever axis
// direction the source uses. Bounds arriving with top and bottom inverted are
// tolerated: the slice is retried once in the swapped orientation and the
// attempt that succeeded is reported as a [WindowAttempt].
//
// # Contours
//
// [Vectorizer] smooths a copy of the values with a Gaussian kernel (sigma in
// grid cells, default 1.0, reflected borders, truncated at 4σ), then runs
// marching squares once per level of a [LevelSet]. Every emitted ring is
// closed, has at least three distinct vertices and carries (lon, lat)
// coordinates interpolated from the grid axes. Default thresholds, in mm/hr:
//
//	0.1  0.5  5  10  20
//
// A level above the smoothed maximum is skipped.
package domain
