package filter

import "time"

// Options is the string form of Criteria as supplied by configuration
// files and command-line flags. Every field is independently optional.
type Options struct {
	MinAge     string   `yaml:"min_age"`  // e.g. "30d": only files at least this old
	MaxAge     string   `yaml:"max_age"`  // e.g. "1y": only files at most this old
	MinSize    string   `yaml:"min_size"` // e.g. "500KB"
	MaxSize    string   `yaml:"max_size"` // e.g. "1GB"
	Extensions []string `yaml:"extensions"`
	Include    []string `yaml:"include"`
	Exclude    []string `yaml:"exclude"`
}

// IsZero reports whether no option is set.
func (o Options) IsZero() bool {
	return o.MinAge == "" && o.MaxAge == "" && o.MinSize == "" && o.MaxSize == "" &&
		len(o.Extensions) == 0 && len(o.Include) == 0 && len(o.Exclude) == 0
}

// Criteria parses the options. Malformed values return a *ConfigError
// naming the offending field.
func (o Options) Criteria(base string) (Criteria, error) {
	c := Criteria{
		Extensions: o.Extensions,
		Include:    o.Include,
		Exclude:    o.Exclude,
		Base:       base,
	}

	var err error
	if c.AgeMin, err = optionalDuration("min_age", o.MinAge); err != nil {
		return Criteria{}, err
	}
	if c.AgeMax, err = optionalDuration("max_age", o.MaxAge); err != nil {
		return Criteria{}, err
	}
	if c.SizeMin, err = optionalSize("min_size", o.MinSize); err != nil {
		return Criteria{}, err
	}
	if c.SizeMax, err = optionalSize("max_size", o.MaxSize); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Build parses the options and compiles the resulting filter.
func (o Options) Build(base string, opts ...FilterOption) (*Filter, error) {
	c, err := o.Criteria(base)
	if err != nil {
		return nil, err
	}
	return New(c, opts...)
}

func optionalDuration(field, s string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return nil, withField(err, field)
	}
	return &d, nil
}

func optionalSize(field, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := ParseSize(s)
	if err != nil {
		return nil, withField(err, field)
	}
	return &n, nil
}
