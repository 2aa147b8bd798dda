package email

// PreviewData holds sample data for each template, used to render previews
// and in tests.
var PreviewData = map[Template]map[string]string{
	TemplateLikeNotification: {
		"Listing":   "babysitting job",
		"LikeCount": "3",
	},
}
