package entity

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}
