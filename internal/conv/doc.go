// Package conv provides checked integer conversions for values read from
// filter files, where a corrupt or foreign file must not wrap around.
package conv
