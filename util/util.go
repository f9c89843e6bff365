package util

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func Min[A constraints.Ordered](num1 A, num2 A) A {
	if num1 > num2 {
		return num2
	}
	return num1
}

func Max[A constraints.Ordered](num1 A, num2 A) A {
	if num1 < num2 {
		return num2
	}
	return num1
}

func Clamp[A constraints.Ordered](v, lo, hi A) A {
	return Max(lo, Min(v, hi))
}

func Sum[A constraints.Integer | constraints.Float](nums []A) A {
	var total A
	for _, v := range nums {
		total += v
	}
	return total
}

// Uniq returns the distinct values of nums in ascending order.
func Uniq[A constraints.Ordered](nums []A) []A {
	res := make([]A, len(nums))
	copy(res, nums)
	slices.Sort(res)
	return slices.Compact(res)
}

// FormatSeconds prints a duration as m:ss, flooring both parts.
func FormatSeconds(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	minutes := int(math.Floor(secs / 60))
	seconds := int(math.Floor(math.Mod(secs, 60)))
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func FormatMilliseconds(ms float64) string {
	return FormatSeconds(ms / 1000)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName renders a MIDI pitch number as scientific pitch notation, e.g. 60 -> C4.
func PitchName(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?%d", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}

func HasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
