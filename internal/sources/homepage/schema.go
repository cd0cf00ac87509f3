package homepage

// ServicesConfig represents the top-level structure of services.yaml
// Homepage uses dynamic keys, so we parse as []map[string][]map[string]ServiceProps
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps contains the service properties arrgate reads. Everything
// else in the entry is ignored.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
	Widget      Widget `yaml:"widget,omitempty"`
}

// Widget is the Homepage widget block. Its credentials are what arrgate
// imports.
type Widget struct {
	Type     string `yaml:"type"`
	URL      string `yaml:"url,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}
