package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names a model backend and its options.
type Backend struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Models struct {
		Recognizer Backend `yaml:"recognizer"`
		Diarizer   Backend `yaml:"diarizer"`
		Aligner    Backend `yaml:"aligner"`
	} `yaml:"models"`

	Pipeline struct {
		FusionMode    string  `yaml:"fusion_mode"`
		GraceTime     float64 `yaml:"grace_time"`
		SpeakerFormat string  `yaml:"speaker_format"`
		SampleRate    int     `yaml:"sample_rate"`
	} `yaml:"pipeline"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB      int `yaml:"max_file_size_mb"`
		MaxDurationMinutes int `yaml:"max_duration_minutes"`
	} `yaml:"limits"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	c := &Config{}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Models.Recognizer = Backend{Name: "whisper", Options: map[string]string{"model": "small"}}
	c.Models.Diarizer = Backend{Name: "rttm", Options: map[string]string{"dir": "rttm"}}
	c.Models.Aligner = Backend{Name: "none"}
	c.Pipeline.FusionMode = "strict"
	c.Pipeline.GraceTime = 3.0
	c.Pipeline.SpeakerFormat = "Speaker %d"
	c.Pipeline.SampleRate = 16000
	c.Workers.Count = 2
	c.Storage.TempDir = "temp"
	c.Storage.OutputDir = "transcripts"
	c.Storage.Database = "transcripts.db"
	c.Cleanup.IntervalMinutes = 60
	c.Cleanup.MaxAgeHours = 24
	c.GoogleDrive.CredentialsFile = "credentials.json"
	c.GoogleDrive.TokenFile = "token.json"
	c.GoogleDrive.FolderName = "Transcripts"
	c.Limits.MaxFileSizeMB = 500
	c.Limits.MaxDurationMinutes = 180
	return c
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	switch {
	case c.Workers.Count < 1:
		return fmt.Errorf("workers.count must be at least 1, got %d", c.Workers.Count)
	case c.Pipeline.GraceTime < 0:
		return fmt.Errorf("pipeline.grace_time must not be negative, got %g", c.Pipeline.GraceTime)
	case c.Pipeline.SampleRate <= 0:
		return fmt.Errorf("pipeline.sample_rate must be positive, got %d", c.Pipeline.SampleRate)
	case c.Models.Recognizer.Name == "" || c.Models.Diarizer.Name == "":
		return fmt.Errorf("models.recognizer and models.diarizer must be named")
	}
	return nil
}
