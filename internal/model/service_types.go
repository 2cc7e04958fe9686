package model

// ReviewFilter narrows the pending-review listing.
type ReviewFilter struct {
	Skill string `form:"skill"`
	Limit int    `form:"limit"`
}
