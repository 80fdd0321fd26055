package dto

// ErrorResponse cuerpo de error HTTP. Kind replica la clase de error de dominio para que el
// cliente decida si reintentar, compensar o escalar.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VoidRequest motivo de una anulación.
type VoidRequest struct {
	Reason string `json:"reason"`
}
