// Package wellplate models the 96-well plate grid addressed by the AMUZA
// fraction collector: well coordinates, device well numbering, and ordered
// well selections for sampling runs.
package wellplate
