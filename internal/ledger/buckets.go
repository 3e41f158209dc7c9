package ledger

import "sort"

// Category is the fine-grained classification of a single contribution,
// as entered on the worship service sheet.
type Category string

const (
	CategoryTithe         Category = "tithe"
	CategoryOffering      Category = "offering"
	CategoryMissions      Category = "missions"
	CategoryLazosDeAmor   Category = "lazos_de_amor"
	CategoryMisionPosible Category = "mision_posible"
	CategoryAPY           Category = "apy"
	CategoryIBA           Category = "iba"
	CategoryCaballeros    Category = "caballeros"
	CategoryDamas         Category = "damas"
	CategoryJovenes       Category = "jovenes"
	CategoryNinos         Category = "ninos"
	CategoryAnexos        Category = "anexos"
	CategoryOther         Category = "other"
)

// Bucket is the coarse ledger grouping that worship totals and report
// postings are kept in.
type Bucket string

const (
	BucketTithe    Bucket = "tithe"
	BucketOffering Bucket = "offering"
	BucketMissions Bucket = "missions"
	BucketOther    Bucket = "other"
)

var AllBuckets = []Bucket{BucketTithe, BucketOffering, BucketMissions, BucketOther}

// BucketGroup maps one contribution category to its ledger bucket.
type BucketGroup struct {
	Category Category `json:"category"`
	Bucket   Bucket   `json:"bucket"`
}

// BucketGroups is the grouping rule. Several national-fund categories
// fold into missions and the ministry categories fold into other; the
// contribution rows keep the original category.
var BucketGroups = []BucketGroup{
	{Category: CategoryTithe, Bucket: BucketTithe},
	{Category: CategoryOffering, Bucket: BucketOffering},
	{Category: CategoryMissions, Bucket: BucketMissions},
	{Category: CategoryLazosDeAmor, Bucket: BucketMissions},
	{Category: CategoryMisionPosible, Bucket: BucketMissions},
	{Category: CategoryAPY, Bucket: BucketMissions},
	{Category: CategoryIBA, Bucket: BucketMissions},
	{Category: CategoryCaballeros, Bucket: BucketOther},
	{Category: CategoryDamas, Bucket: BucketOther},
	{Category: CategoryJovenes, Bucket: BucketOther},
	{Category: CategoryNinos, Bucket: BucketOther},
	{Category: CategoryAnexos, Bucket: BucketOther},
	{Category: CategoryOther, Bucket: BucketOther},
}

// BucketFor returns the ledger bucket of a contribution category.
func BucketFor(c Category) (Bucket, bool) {
	for _, g := range BucketGroups {
		if g.Category == c {
			return g.Bucket, true
		}
	}
	return "", false
}

// ValidBucket checks if a bucket string is valid.
func ValidBucket(b Bucket) bool {
	for _, v := range AllBuckets {
		if v == b {
			return true
		}
	}
	return false
}

// CategoriesIn lists the categories grouped under a bucket, sorted.
func CategoriesIn(b Bucket) []Category {
	var cats []Category
	for _, g := range BucketGroups {
		if g.Bucket == b {
			cats = append(cats, g.Category)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
