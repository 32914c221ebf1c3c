package category

// Item is one catalog category with the number of products filed under it.
type Item struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
}
