package registry

// apiResponse models the top-level structure of the upstream registry's response.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data struct {
		Page     int           `json:"page"`
		PageSize int           `json:"pageSize"`
		Total    int           `json:"total"`
		Items    []FacilityDTO `json:"items"`
	} `json:"data"`
}

// FacilityDTO is one facility as published by the upstream registry.
type FacilityDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	HourlyRate  string  `json:"hourlyRate"` // decimal string, e.g. "5.00"
	OperatorRef *string `json:"operatorRef"`
}
