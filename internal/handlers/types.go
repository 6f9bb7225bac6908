package handlers

import "time"

// Envelope is the status block carried by every JSON response.
type Envelope struct {
	Success bool   `doc:"Whether the request succeeded" example:"true"    json:"success"`
	Code    string `doc:"Stable result code"            example:"00"      json:"code"`
	Message string `doc:"Human readable result"         example:"Success" json:"message"`
}

func success() Envelope {
	return Envelope{Success: true, Code: codeSuccess, Message: "Success"}
}

// ShortenRequest is the request for creating a short URL.
type ShortenRequest struct {
	Body struct {
		URL            string `doc:"The URL to shorten"                                    example:"https://example.com/very/long/path" json:"url"`
		ShortCode      string `doc:"Custom short code, honored for identified callers"     example:"promo1"                             json:"shortCode,omitempty"`
		ExpirationTime *int   `doc:"Expiration in days, honored for identified callers"    example:"30"                                 json:"expirationTime,omitempty"`
	}
}

// ShortenResponse is the response for a successfully created short URL.
type ShortenResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     struct {
		Envelope

		ShortURL  string    `doc:"The full short URL"     example:"http://localhost:8888/promo1" json:"shortUrl"`
		ExpiresAt time.Time `doc:"When the short URL expires"                                    json:"expiresAt"`
	}
}

// LookupRequest is the request for resolving a short code without redirecting.
type LookupRequest struct {
	ShortCode string `doc:"The short code" example:"promo1" path:"shortCode"`
}

// LookupResponse carries the original URL of a short code.
type LookupResponse struct {
	Body struct {
		Envelope

		OriginalURL string    `doc:"The original URL"          example:"https://example.com/very/long/path" json:"originalUrl"`
		ExpiresAt   time.Time `doc:"When the short URL expires"                                             json:"expiresAt"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"promo1" path:"code"`
}

// RedirectResponse sends the client to the original URL.
type RedirectResponse struct {
	Status       int
	Location     string `doc:"The original URL" header:"Location"`
	CacheControl string `header:"Cache-Control"`
}
