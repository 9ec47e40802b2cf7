package controller

// GeneralResponse is the body sent by a handler that has no resource to return.
type GeneralResponse struct {
	errors ParameterErrorList
	msg    string
}

// NewFromErrors fills a GeneralResponse with errors.
func (gr *GeneralResponse) NewFromErrors(errors *ParameterErrorList) {
	gr.errors = *errors
}

// NewFromMsg fills a GeneralResponse with a string message.
func (gr *GeneralResponse) NewFromMsg(msg string) {
	gr.msg = msg
}

// ToMap converts this struct to a map. Empty fields are left out.
func (gr *GeneralResponse) ToMap() map[string]interface{} {
	ret := make(map[string]interface{})
	if len(gr.errors) != 0 {
		ret["errors"] = gr.errors
	}
	if gr.msg != "" {
		ret["msg"] = gr.msg
	}

	return ret
}
