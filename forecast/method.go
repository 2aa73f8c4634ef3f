package forecast

import "fmt"

// Method is one of the competing model families.
type Method string

const (
	ARIMA       Method = "ARIMA"
	HoltWinters Method = "HoltWinters"
	ETS         Method = "ETS"
)

// Methods lists every method in tie-break order.
var Methods = []Method{ARIMA, HoltWinters, ETS}

// ParseMethod accepts the canonical names and their lower-case forms.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "ARIMA", "arima":
		return ARIMA, nil
	case "HoltWinters", "holtwinters", "holt-winters", "hw":
		return HoltWinters, nil
	case "ETS", "ets":
		return ETS, nil
	}
	return "", fmt.Errorf("unknown forecast method %q", s)
}

func (m Method) rank() int {
	for i, v := range Methods {
		if v == m {
			return i
		}
	}
	return len(Methods)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
