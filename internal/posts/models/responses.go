package models

import "time"

type PostResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	Address              string    `json:"address,omitempty"`
	City                 string    `json:"city"`
	NeighborhoodCoverage string    `json:"neighborhood_coverage,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	ContactName          string    `json:"contact_name,omitempty"`
	OpeningHours         string    `json:"opening_hours,omitempty"`
	CanReceiveDonations  bool      `json:"can_receive_donations"`
	Public               bool      `json:"public"`
	CreatedAt            time.Time `json:"created_at"`
}

type ListPostsResponse struct {
	Posts []PostResponse `json:"posts"`
}

func ToPostResponse(p *Post) PostResponse {
	return PostResponse{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		Type:                 string(p.Type),
		Address:              p.Address,
		City:                 p.City,
		NeighborhoodCoverage: p.NeighborhoodCoverage,
		Phone:                p.Phone,
		ContactName:          p.ContactName,
		OpeningHours:         p.OpeningHours,
		CanReceiveDonations:  p.CanReceiveDonations,
		Public:               p.Public,
		CreatedAt:            p.CreatedAt,
	}
}

func ToListPostsResponse(posts []*Post) ListPostsResponse {
	out := ListPostsResponse{Posts: make([]PostResponse, 0, len(posts))}
	for _, p := range posts {
		out.Posts = append(out.Posts, ToPostResponse(p))
	}
	return out
}
