package email

import "strconv"

// SendLikeNotification tells a listing's owner that someone liked it.
// listing is the human name of the listing, e.g. "babysitting job".
func (c *Client) SendLikeNotification(to, listing string, likeCount int) error {
	data := map[string]string{
		"Listing":   listing,
		"LikeCount": strconv.Itoa(likeCount),
	}

	return c.SendEmail(
		to,
		"Someone liked your "+listing+" on Sitterbook",
		TemplateLikeNotification,
		data,
	)
}
