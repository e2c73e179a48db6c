// Package stamps is the reaction vocabulary shared by the server and the
// local client: the four built-in reactions and the custom stamp picker.
package stamps

import "fmt"

// Builtin reactions are present on every post, in display order.
var Builtin = []string{"pray", "laugh", "sympathy", "growth"}

// Stamp is a custom reaction shown in the picker.
type Stamp struct {
	Key   string
	Label string
}

var Catalog = []Stamp{
	{Key: "zange", Label: "ZANGE"},
	{Key: "erai", Label: "えらい"},
	{Key: "Oh", Label: "Oh"},
	{Key: "nanyate", Label: "なんやて"},
	{Key: "wakaru", Label: "わかる"},
	{Key: "wwww", Label: "wwww"},
	{Key: "YES", Label: "YES"},
	{Key: "e", Label: "え？"},
	{Key: "ho", Label: "ほぅ"},
	{Key: "yaba", Label: "やば"},
	{Key: "otsu", Label: "おつかれ"},
	{Key: "kini", Label: "きになる"},
	{Key: "n", Label: "ん？"},
	{Key: "onaji", Label: "同じく"},
	{Key: "no", Label: "NO"},
}

var builtinEmoji = map[string]string{
	"pray":     "🙏",
	"laugh":    "😂",
	"sympathy": "🤝",
	"growth":   "🌱",
}

func IsBuiltin(key string) bool {
	_, ok := builtinEmoji[key]
	return ok
}

// Label returns the display form of a reaction key; unknown custom keys are
// shown as-is.
func Label(key string) string {
	if e, ok := builtinEmoji[key]; ok {
		return e
	}
	for _, s := range Catalog {
		if s.Key == key {
			return s.Label
		}
	}
	return key
}

// ReactionNotice is the notification text sent to a post owner.
func ReactionNotice(actorName, key string) string {
	if IsBuiltin(key) {
		return fmt.Sprintf("%s さんがあなたの投稿に %s", actorName, Label(key))
	}
	return fmt.Sprintf("%s さんがあなたの投稿にスタンプ（%s）", actorName, Label(key))
}
