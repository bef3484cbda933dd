package catalog

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/IshaanNene/deskrank/internal/product"
	"github.com/IshaanNene/deskrank/internal/score"
	"github.com/IshaanNene/deskrank/internal/types"
)

// DefaultAssociateTag is used when no associate tag is configured.
const DefaultAssociateTag = "deskitemrank-22"

// AffiliateURL builds the product link carrying the associate tag.
func AffiliateURL(asin, tag string) string {
	if tag == "" {
		tag = DefaultAssociateTag
	}
	return "https://www.amazon.co.jp/dp/" + asin + "?tag=" + tag
}

// classifyRules is checked in order; the first rule with a matching keyword
// decides the category.
var classifyRules = []struct {
	category types.Category
	keywords []string
}{
	{types.Category{Category: "furniture", SubCategory: "monitor-arm"}, []string{"モニターアーム", "monitor arm", "ergotron", "エルゴトロン"}},
	{types.Category{Category: "furniture", SubCategory: "monitor-stand"}, []string{"モニター台", "モニタースタンド", "monitor stand"}},
	{types.Category{Category: "accessory", SubCategory: "desk-mat"}, []string{"デスクマット", "マウスパッド", "desk mat"}},
	{types.Category{Category: "accessory", SubCategory: "wristrest"}, []string{"リストレスト", "パームレスト", "wrist rest"}},
	{types.Category{Category: "accessory", SubCategory: "laptop-stand"}, []string{"ノートpcスタンド", "pcスタンド", "laptop stand"}},
	{types.Category{Category: "lighting", SubCategory: "monitor-light"}, []string{"モニターライト", "スクリーンバー", "screenbar"}},
	{types.Category{Category: "lighting", SubCategory: "desk-light"}, []string{"デスクライト", "デスクランプ", "desk lamp", "desk light"}},
	{types.Category{Category: "lighting", SubCategory: "indirect-light"}, []string{"間接照明", "ライトバー", "led テープ", "hue"}},
	{types.Category{Category: "furniture", SubCategory: "chair"}, []string{"チェア", "椅子", "chair"}},
	{types.Category{Category: "furniture", SubCategory: "desk"}, []string{"昇降デスク", "スタンディングデスク", "パソコンデスク", "flexispot", "desk"}},
	{types.Category{Category: "device", SubCategory: "keyboard"}, []string{"キーボード", "keyboard", "hhkb"}},
	{types.Category{Category: "device", SubCategory: "trackball"}, []string{"トラックボール", "trackball"}},
	{types.Category{Category: "device", SubCategory: "mouse"}, []string{"マウス", "mouse"}},
	{types.Category{Category: "device", SubCategory: "monitor"}, []string{"モニター", "ディスプレイ", "monitor", "display"}},
	{types.Category{Category: "device", SubCategory: "webcam"}, []string{"webカメラ", "ウェブカメラ", "webcam"}},
	{types.Category{Category: "device", SubCategory: "microphone"}, []string{"マイク", "microphone"}},
	{types.Category{Category: "device", SubCategory: "headphone"}, []string{"ヘッドホン", "ヘッドフォン", "ヘッドセット", "headphone", "headset"}},
	{types.Category{Category: "device", SubCategory: "earphone"}, []string{"イヤホン", "earphone", "earbuds"}},
	{types.Category{Category: "device", SubCategory: "speaker"}, []string{"スピーカー", "speaker"}},
	{types.Category{Category: "accessory", SubCategory: "hub"}, []string{"usbハブ", "ドッキングステーション", "hub", "dock"}},
	{types.Category{Category: "accessory", SubCategory: "cable-box"}, []string{"ケーブル", "cable"}},
}

// Fallback category for products no rule recognises.
var defaultCategory = types.Category{Category: "accessory", SubCategory: "other"}

// Classify guesses a category from product text.
func Classify(text string) types.Category {
	lower := strings.ToLower(text)
	for _, r := range classifyRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return defaultCategory
}

// FromDiscovered builds a catalog item for a newly discovered product.
// override, when set, is the category a ranking page listed the product
// under and takes precedence over classification.
func FromDiscovered(info *product.Info, d types.DiscoveredItem, override *types.Category, tag string, now time.Time) Item {
	asin := d.ASIN
	if asin == "" {
		asin = info.ASIN
	}
	name := strings.TrimSpace(info.Title)
	if name == "" {
		name = d.SourceTitle
	}

	cat := Classify(name + " " + info.Description)
	if override != nil && override.Category != "" {
		cat = *override
	}

	amazon := amazonScore(info.Rating)
	raw := initialRaw(d)
	social := raw.Social(amazon)

	return Item{
		ID:          itemID(info.Brand, name, asin),
		Name:        name,
		Brand:       info.Brand,
		Description: info.Description,
		Category:    cat.Category,
		SubCategory: cat.SubCategory,
		Score:       score.Calculate(raw.Factors()),
		Amazon: &Amazon{
			ASIN:         asin,
			Price:        info.Price,
			AffiliateURL: AffiliateURL(asin, tag),
		},
		SocialScore: &social,
		ImageURL:    info.ImageURL,
		Rating:      info.Rating,
		ReviewCount: info.ReviewCount,
		IsNew:       true,
		CreatedAt:   now.UTC().Format(time.RFC3339),
	}
}

// initialRaw maps discovery engagement onto the channel it came from.
// Ranking sources carry no social engagement.
func initialRaw(d types.DiscoveredItem) score.Raw {
	eng := int64(math.Max(d.TotalEngagement, 0))
	switch d.SourceType {
	case types.SourceYouTube:
		return score.Raw{Videos: d.MentionCount, VideoViews: eng}
	case types.SourceNote, types.SourceZenn, types.SourceHatena:
		return score.Raw{NoteArticles: d.MentionCount, NoteLikes: int(eng)}
	}
	return score.Raw{}
}

// amazonScore maps a 0-5 star rating onto 0-100; unrated products get 50.
func amazonScore(rating float64) int {
	if rating <= 0 {
		return 50
	}
	return int(math.Round(rating * 20))
}

// itemID is a slug of the first ASCII words of brand and name followed by
// the lowercase product code.
func itemID(brand, name, asin string) string {
	var words []string
	for _, w := range strings.FieldsFunc(strings.ToLower(brand+" "+name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	}) {
		if len(words) > 0 && words[len(words)-1] == w {
			continue
		}
		words = append(words, w)
		if len(words) == 4 {
			break
		}
	}
	words = append(words, strings.ToLower(asin))
	return strings.Join(words, "-")
}
