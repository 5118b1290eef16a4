package stores

// TagBucket maps one custom-vision tag UUID to a manual-count bucket.
type TagBucket struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// TagCatalog is ordered; ManualOptions follows its order.
type TagCatalog []TagBucket

func DefaultTagCatalog() TagCatalog {
	return TagCatalog{
		{ID: "9fc45a4c-3443-4752-a2a3-3fdcd0cbfcfb", Key: "butano6", Name: "Butano 6 kg", Image: "/bombona-6.png"},
		{ID: "8fd4b2da-fce6-40c2-b62d-baa6f88b577e", Key: "butano12", Name: "Butano 12 kg", Image: "/bombona-12.png"},
		{ID: "40b49e70-6c5f-4542-bc15-291e98bb92b7", Key: "butano125", Name: "Butano 12,5 kg", Image: "/bombona-12.5.png"},
		{ID: "340357f5-080b-4c1d-acdf-cd60b771f064", Key: "butanoPropano35", Name: "Propano 35 kg", Image: "/bombona-propano.png"},
	}
}

func (c TagCatalog) ByID(id string) (TagBucket, bool) {
	for _, bucket := range c {
		if bucket.ID == id {
			return bucket, true
		}
	}
	return TagBucket{}, false
}
