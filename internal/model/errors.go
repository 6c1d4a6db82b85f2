package model

import "fmt"

func errMissingField(name string) error {
	return fmt.Errorf("conversation segment: missing or invalid field %q", name)
}

func errInvalidClient(c Client) error {
	return fmt.Errorf("conversation segment: invalid client %q", c)
}
