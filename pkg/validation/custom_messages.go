package validation

func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Email": {
			"required": "email must not be empty",
			"email":    "email is not a valid address",
		},
		"Password": {
			"required": "password must not be empty",
			"min":      "password must be at least 8 characters",
		},
		"Password1": {
			"required": "password must not be empty",
			"min":      "password must be at least 8 characters",
		},
		"Password2": {
			"required": "password confirmation must not be empty",
			"eqfield":  "passwords do not match",
		},
		"Name": {
			"required": "name must not be empty",
			"max":      "name must be at most 64 characters",
		},
		"Username": {
			"required": "username must not be empty",
			"alphanum": "username may only contain letters and digits",
			"min":      "username must be at least 3 characters",
			"max":      "username must be at most 32 characters",
		},
		"AccessCode": {
			"required": "access code must not be empty",
			"len":      "access code must be exactly 6 digits",
			"numeric":  "access code must contain only digits",
		},
		"Token": {
			"required": "token must not be empty",
		},
		"SessionID": {
			"required": "session id must not be empty",
			"uuid4":    "session id must be a valid UUID",
		},
	}
	return customValidationMessages[field]
}
