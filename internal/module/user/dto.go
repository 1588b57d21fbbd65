package user

import (
	"net/url"
	"time"

	"github.com/simp-lee/saleads/internal/domain"
)

// ProfileResponse is the public view of a user.
type ProfileResponse struct {
	ID       uint      `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
	AdsURL   string    `json:"ads_url"`
}

func newProfileResponse(u *domain.User) ProfileResponse {
	return ProfileResponse{
		ID:       u.ID,
		Username: u.Username,
		JoinedAt: u.CreatedAt,
		AdsURL:   "/users/" + url.PathEscape(u.Username) + "/ads",
	}
}
