package model

import (
	"errors"
	"testing"
)

func validConfig() ProcessingConfig {
	return ProcessingConfig{
		Width:            1600,
		Height:           1600,
		Margin:           60,
		WatermarkOpacity: 0.08,
		WatermarkScale:   0.4,
		ExportJPG:        true,
		JPEGQuality:      92,
		ProductType:      "custom hat",
		Template:         "{product}-{colors}-{timestamp}",
		TimestampLayout:  "20060102-150405",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProcessingConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*ProcessingConfig) {}},
		{name: "layout with separators", mutate: func(c *ProcessingConfig) { c.TimestampLayout = "2006/01/02 15:04" }},
		{name: "layout without digits", mutate: func(c *ProcessingConfig) { c.TimestampLayout = "--" }, wantErr: true},
		{name: "empty layout", mutate: func(c *ProcessingConfig) { c.TimestampLayout = " " }, wantErr: true},
		{name: "margin too large", mutate: func(c *ProcessingConfig) { c.Margin = 800 }, wantErr: true},
		{name: "unknown placeholder", mutate: func(c *ProcessingConfig) { c.Template = "{product}-{sku}" }, wantErr: true},
		{name: "template separator", mutate: func(c *ProcessingConfig) { c.Template = "{product}/{colors}" }, wantErr: true},
		{name: "heuristic ignores template", mutate: func(c *ProcessingConfig) { c.Heuristic = true; c.Template = "" }},
		{name: "png without removal", mutate: func(c *ProcessingConfig) { c.ExportJPG = false; c.ExportPNG = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("unexpected result %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
