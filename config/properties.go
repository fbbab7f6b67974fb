package config

import (
	"strings"

	mprops "github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// propertiesDecoders hands viper a decoder for flat key=value files under any of the
// usual extensions.
type propertiesDecoders struct{}

func (propertiesDecoders) Decoder(format string) (viper.Decoder, error) {
	switch strings.ToLower(format) {
	case "properties", "props", "prop":
		return propertiesDecoder{}, nil
	default:
		return nil, errors.Errorf("no decoder for %q files", format)
	}
}

// propertiesDecoder turns dotted keys into nested maps so viper can address them by
// path.
type propertiesDecoder struct{}

func (propertiesDecoder) Decode(b []byte, v map[string]any) error {
	p, err := mprops.Load(b, mprops.UTF8)
	if err != nil {
		return err
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		path := strings.Split(key, ".")
		node := v
		for _, part := range path[:len(path)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				if _, leaf := node[part]; leaf {
					return errors.Errorf("property %q is nested under a value", key)
				}
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		last := path[len(path)-1]
		if _, nested := node[last].(map[string]any); nested {
			return errors.Errorf("property %q is also a prefix of other properties", key)
		}
		node[last] = value
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.WithDecoderRegistry(propertiesDecoders{}))
	v.SetConfigType("properties")
	return v
}
