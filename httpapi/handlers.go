package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/gig"
	"gigflow/hire"
)

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	user, err := a.auth.Register(r.Context(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(*user))
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	res, err := a.auth.Login(r.Context(), auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(a.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, loginResponse{Token: res.Token, User: toUserResponse(res.User)})
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())
	user, err := a.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	render.JSON(w, r, toUserResponse(*user))
}

func (a *api) createGig(w http.ResponseWriter, r *http.Request) {
	var req createGigRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	userID, _ := UserIDFrom(r.Context())

	g, err := a.gigs.Create(r.Context(), gig.CreateParams{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toGigResponse(g))
}

func (a *api) listGigs(w http.ResponseWriter, r *http.Request) {
	listings, err := a.gigs.ListOpen(r.Context(), gig.Filters{Search: r.URL.Query().Get("search")})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	out := make([]gigResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	render.JSON(w, r, out)
}

func (a *api) submitBid(w http.ResponseWriter, r *http.Request) {
	var req submitBidRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	userID, _ := UserIDFrom(r.Context())

	b, err := a.bids.Submit(r.Context(), bid.SubmitParams{
		GigID:        req.GigID,
		FreelancerID: userID,
		Message:      req.Message,
		Price:        req.Price,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toBidResponse(b))
}

func (a *api) listBids(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	details, err := a.bids.ListForGig(r.Context(), chi.URLParam(r, "gigId"), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	out := make([]bidResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toDetailResponse(d))
	}
	render.JSON(w, r, out)
}

func (a *api) hireBid(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	d, err := a.hire.Hire(r.Context(), hire.Params{
		BidID:   chi.URLParam(r, "bidId"),
		ActorID: userID,
	})
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	render.JSON(w, r, toDetailResponse(d))
}
