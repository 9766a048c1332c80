// internal/game/words.go
package game

import "math/rand"

// targetWords is the fallback word bank used whenever a turn begins without an
// owner-configured target.
var targetWords = []string{
	"苹果",
	"猫",
	"房子",
	"汽车",
	"树",
	"太阳",
	"月亮",
	"星星",
	"鱼",
	"鸟",
}

func chooseTargetWord() string {
	return targetWords[rand.Intn(len(targetWords))]
}
