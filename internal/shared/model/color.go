package model

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// hexToName 颜色值到 CSS 名称的反向索引，同值取字典序最小的名称
var hexToName = buildColorIndex()

func buildColorIndex() map[string]string {
	idx := make(map[string]string, len(colornames.Names))
	// colornames.Names 已按字典序排列
	for _, name := range colornames.Names {
		c := colornames.Map[name]
		hex := fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
		if _, ok := idx[hex]; !ok {
			idx[hex] = name
		}
	}
	return idx
}

// NormalizeColor 接受 #rgb、#rrggbb（# 或 0x 前缀可省略）与 CSS 颜色名，
// 统一为小写 #rrggbb；不支持透明度
func NormalizeColor(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", NewValidationError("color", "field required")
	}
	if c, ok := colornames.Map[v]; ok {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
	}

	switch {
	case strings.HasPrefix(v, "#"):
		v = v[1:]
	case strings.HasPrefix(v, "0x"):
		v = v[2:]
	}
	switch len(v) {
	case 3:
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	case 6:
	default:
		return "", NewValidationError("color", "value is not a valid color: %q", s)
	}
	if _, err := strconv.ParseUint(v, 16, 32); err != nil {
		return "", NewValidationError("color", "value is not a valid color: %q", s)
	}
	return "#" + v, nil
}

// ColorName 返回颜色的 CSS 名称，没有对应名称时返回 hex 本身
func ColorName(color string) string {
	hex, err := NormalizeColor(color)
	if err != nil {
		return color
	}
	if name, ok := hexToName[hex]; ok {
		return name
	}
	return hex
}
