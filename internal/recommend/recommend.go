// Package recommend estimates a starting size from a profile's body
// measurements. It has no access to stored sizes.
package recommend

import (
	"math"
	"strconv"

	"sizes/pkg/domain"
)

// Kids garment sizes follow the child's height in centimetres.
var kidsHeights = []int{74, 80, 86, 92, 98, 104, 110, 116, 122, 128, 134, 140, 146, 152, 158, 164}

type band struct {
	below float64
	size  string
}

var kidsShoes = []band{
	{80, "19-20"},
	{90, "22-23"},
	{100, "25-26"},
	{115, "28-29"},
	{130, "31-33"},
	{150, "35-37"},
}

// Adult tops and outerwear: height bound, weight bound, size.
type adultBand struct {
	height float64
	weight float64
	size   string
}

var (
	womenTops = []adultBand{{155, 48, "XS"}, {162, 56, "S"}, {170, 68, "M"}, {178, 80, "L"}}
	menTops   = []adultBand{{165, 60, "S"}, {175, 75, "M"}, {185, 90, "L"}, {195, 105, "XL"}}

	womenBottoms = []band{{58, "36"}, {66, "38-40"}, {78, "42"}}
	menBottoms   = []band{{65, "38-40"}, {75, "42"}, {85, "44"}, {95, "46"}}
)

// Size returns the suggested size of category for profile, or false when no
// estimate applies. A profile without height never gets a suggestion.
func Size(profile domain.Profile, category domain.Category) (string, bool) {
	if profile.Height == nil || *profile.Height <= 0 {
		return "", false
	}
	height := *profile.Height
	var weight float64
	if profile.Weight != nil {
		weight = *profile.Weight
	}

	if profile.IsChild() {
		switch category {
		case domain.CategoryTops, domain.CategoryBottoms, domain.CategoryOuterwear:
			return strconv.Itoa(nearest(kidsHeights, height)), true
		case domain.CategoryShoes:
			return below(kidsShoes, height)
		}
		return "", false
	}

	woman := profile.Type == domain.ProfileTypeWoman
	switch category {
	case domain.CategoryTops, domain.CategoryOuterwear:
		if woman {
			return adult(womenTops, height, weight, "XL"), true
		}
		return adult(menTops, height, weight, "XXL"), true
	case domain.CategoryBottoms:
		if weight <= 0 {
			return "", false
		}
		if woman {
			if height < 158 && weight < 50 {
				return "34", true
			}
			return belowOr(womenBottoms, weight, "44+"), true
		}
		return belowOr(menBottoms, weight, "48-50"), true
	}
	return "", false
}

// All returns every category that has a suggestion for profile.
func All(profile domain.Profile) map[domain.Category]string {
	out := make(map[domain.Category]string)
	for _, c := range domain.Categories() {
		if size, ok := Size(profile, c); ok {
			out[c] = size
		}
	}
	return out
}

// nearest picks the closest entry; ties go to the smaller size.
func nearest(values []int, target float64) int {
	best := values[0]
	for _, v := range values[1:] {
		if math.Abs(float64(v)-target) < math.Abs(float64(best)-target) {
			best = v
		}
	}
	return best
}

func below(bands []band, value float64) (string, bool) {
	for _, b := range bands {
		if value < b.below {
			return b.size, true
		}
	}
	return "", false
}

func belowOr(bands []band, value float64, fallback string) string {
	if size, ok := below(bands, value); ok {
		return size
	}
	return fallback
}

func adult(bands []adultBand, height, weight float64, fallback string) string {
	for _, b := range bands {
		if height < b.height || (weight > 0 && weight < b.weight) {
			return b.size
		}
	}
	return fallback
}
