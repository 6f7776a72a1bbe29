package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type AuthLogoutResponse struct {
	Status string `json:"status"`
}

type AuthMeResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AccidentEnvelope struct {
	Status string    `json:"status"`
	Data   *Accident `json:"data"`
}

type AccidentListEnvelope struct {
	Status string     `json:"status"`
	Data   []Accident `json:"data"`
}

type CameraEnvelope struct {
	Status string  `json:"status"`
	Data   *Camera `json:"data"`
}
