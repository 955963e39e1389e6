package models

// ListingFields are the publisher-editable attributes of a website listing.
type ListingFields struct {
	PublishingPrice             float64  `json:"publishingPrice"`
	CopywritingPrice            float64  `json:"copywritingPrice"`
	HomepageAnnouncementPrice   float64  `json:"homepageAnnouncementPrice"`
	SensitiveContentExtraCharge float64  `json:"sensitiveContentExtraCharge"`
	DiscountPercentage          float64  `json:"discountPercentage"`
	Category                    string   `json:"category"`
	AllCategories               []string `json:"allCategories"`
	Keywords                    []string `json:"keywords"`
	Country                     string   `json:"country"`
	AdditionalCountries         []string `json:"additionalCountries"`
	MainLanguage                string   `json:"mainLanguage"`
	AdditionalLanguages         []string `json:"additionalLanguages"`
	AcceptedSensitiveCategories []string `json:"acceptedSensitiveCategories"`
	Description                 string   `json:"description"`
}

// ApplyTo copies the listing fields onto w.
func (f ListingFields) ApplyTo(w *Website) {
	w.PublishingPrice = f.PublishingPrice
	w.CopywritingPrice = f.CopywritingPrice
	w.HomepageAnnouncementPrice = f.HomepageAnnouncementPrice
	w.SensitiveContentExtraCharge = f.SensitiveContentExtraCharge
	w.DiscountPercentage = f.DiscountPercentage
	w.Category = f.Category
	w.AllCategories = nonNil(f.AllCategories)
	w.Keywords = nonNil(f.Keywords)
	w.Country = f.Country
	w.AdditionalCountries = nonNil(f.AdditionalCountries)
	w.MainLanguage = f.MainLanguage
	w.AdditionalLanguages = nonNil(f.AdditionalLanguages)
	w.AcceptedSensitiveCategories = nonNil(f.AcceptedSensitiveCategories)
	w.Description = f.Description
}

// ListingOf extracts the editable fields of w.
func ListingOf(w *Website) ListingFields {
	return ListingFields{
		PublishingPrice:             w.PublishingPrice,
		CopywritingPrice:            w.CopywritingPrice,
		HomepageAnnouncementPrice:   w.HomepageAnnouncementPrice,
		SensitiveContentExtraCharge: w.SensitiveContentExtraCharge,
		DiscountPercentage:          w.DiscountPercentage,
		Category:                    w.Category,
		AllCategories:               w.AllCategories,
		Keywords:                    w.Keywords,
		Country:                     w.Country,
		AdditionalCountries:         w.AdditionalCountries,
		MainLanguage:                w.MainLanguage,
		AdditionalLanguages:         w.AdditionalLanguages,
		AcceptedSensitiveCategories: w.AcceptedSensitiveCategories,
		Description:                 w.Description,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
