// Package review produces the canned product review shown on product pages.
package review

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var templates = []string{
	"This %[1]s exceeded my expectations! The quality is outstanding, and it's exactly what I was looking for. " +
		"Shipping was fast and the packaging was secure. I've been using it for a few weeks now and it still works perfectly. " +
		"The design is sleek and modern, and it fits well with my other devices. " +
		"I would definitely recommend this product to anyone looking for a reliable and high-quality option.",

	"I've tried several similar products before, but this %[1]s is by far the best. " +
		"The features are intuitive and user-friendly, making it perfect for both beginners and experienced users. " +
		"The price point is also very reasonable considering the quality and functionality you get. " +
		"Customer service was excellent when I had a question about setup. " +
		"Overall, a 5-star product that I'll be purchasing again!",

	"The %[1]s has completely transformed my daily routine. It's efficient, durable, and beautifully designed. " +
		"I was initially hesitant about the price, but after using it for a month, I can confidently say it's worth every penny. " +
		"The attention to detail is impressive, and it's clear the manufacturers put a lot of thought into the user experience. " +
		"Highly recommended!",
}

// Generator picks a review template at random
type Generator struct {
	pick func(n int) int
}

// NewGenerator returns a Generator backed by math/rand
func NewGenerator() *Generator {
	return &Generator{pick: rand.IntN}
}

// Generate returns a review mentioning productTitle
func (g *Generator) Generate(productTitle string) string {
	title := strings.TrimSpace(productTitle)
	if title == "" {
		title = "product"
	}
	return fmt.Sprintf(templates[g.pick(len(templates))], title)
}
