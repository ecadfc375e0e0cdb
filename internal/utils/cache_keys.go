package utils

import (
	"strconv"
	"strings"
)

const ProductsCountCacheKey = "products:count:v1"

func BuildProductsBrowseCacheKey(category string, limit int) string {
	return "products:browse:v1:category=" + strings.ToLower(strings.TrimSpace(category)) +
		":limit=" + strconv.Itoa(limit)
}
