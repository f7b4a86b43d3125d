package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

// parseKeyColors reads a comma separated list of hex colours, "#00ff00,0000ff".
func parseKeyColors(s string) ([]entity.KeyColor, error) {
	var colors []entity.KeyColor
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "#")
		if part == "" {
			continue
		}
		if len(part) != 6 {
			return nil, fmt.Errorf("key colour %q: want 6 hex digits", part)
		}
		v, err := strconv.ParseUint(part, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("key colour %q: %w", part, err)
		}
		colors = append(colors, entity.KeyColor{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)})
	}
	return colors, nil
}

// parseCrop reads "top,right,bottom,left" pixel insets.
func parseCrop(s string) (entity.CropInsets, error) {
	if strings.TrimSpace(s) == "" {
		return entity.CropInsets{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return entity.CropInsets{}, fmt.Errorf("crop %q: want top,right,bottom,left", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return entity.CropInsets{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = n
	}
	return entity.CropInsets{Top: v[0], Right: v[1], Bottom: v[2], Left: v[3]}, nil
}

func parseDirection(s string) (entity.FeatherDirection, error) {
	switch d := entity.FeatherDirection(strings.ToLower(s)); d {
	case entity.FeatherTowardBackground, entity.FeatherTowardSubject:
		return d, nil
	default:
		return "", fmt.Errorf("unknown feather direction %q (use 'background' or 'subject')", s)
	}
}
