package httpapi

import (
	"time"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/gig"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createGigRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
}

type submitBidRequest struct {
	GigID   string  `json:"gigId" validate:"required,uuid"`
	Message string  `json:"message" validate:"required,max=2000"`
	Price   float64 `json:"price" validate:"required,gt=0"`
}

type userRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type gigResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      float64   `json:"budget"`
	Status      string    `json:"status"`
	Owner       userRef   `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type bidResponse struct {
	ID         string    `json:"id"`
	GigID      string    `json:"gigId"`
	Freelancer userRef   `json:"freelancer"`
	Message    string    `json:"message"`
	Price      float64   `json:"price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toGigResponse(g gig.Gig) gigResponse {
	return gigResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Budget:      g.Budget,
		Status:      string(g.Status),
		Owner:       userRef{ID: g.OwnerID},
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toListingResponse(l gig.Listing) gigResponse {
	out := toGigResponse(l.Gig)
	out.Owner.Name = l.OwnerName
	out.Owner.Email = l.OwnerEmail
	return out
}

func toBidResponse(b bid.Bid) bidResponse {
	return bidResponse{
		ID:         b.ID,
		GigID:      b.GigID,
		Freelancer: userRef{ID: b.FreelancerID},
		Message:    b.Message,
		Price:      b.Price,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toDetailResponse(d bid.Detail) bidResponse {
	out := toBidResponse(d.Bid)
	out.Freelancer.Name = d.FreelancerName
	out.Freelancer.Email = d.FreelancerEmail
	return out
}
