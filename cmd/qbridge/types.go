package main

// CLIResult is the top-level envelope for every command.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
}

// CLIGenerate summarizes a generate run.
type CLIGenerate struct {
	Root      string `json:"root" yaml:"root"`
	Database  string `json:"database" yaml:"database"`
	Files     int    `json:"files" yaml:"files"`
	Objects   int    `json:"objects" yaml:"objects"`
	Generated int    `json:"generated" yaml:"generated"`
	Skipped   int    `json:"skipped" yaml:"skipped"`
}

// CLIObject is one QObject in a listing.
type CLIObject struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	RustStruct    string `json:"rust_struct" yaml:"rust_struct"`
	Module        string `json:"module" yaml:"module"`
	Namespace     string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	File          string `json:"file" yaml:"file"`
	Line          int    `json:"line" yaml:"line"`
	PropertyCount int    `json:"property_count" yaml:"property_count"`
	Generated     bool   `json:"generated" yaml:"generated"`
}

// CLIProperty is one property with its derived names.
type CLIProperty struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Getter string `json:"getter" yaml:"getter"`
	Setter string `json:"setter" yaml:"setter"`
	Notify string `json:"notify" yaml:"notify"`
	Unsafe bool   `json:"unsafe" yaml:"unsafe"`
	Line   int    `json:"line" yaml:"line"`
}

// CLISignal is one generated signal record.
type CLISignal struct {
	RustName string `json:"rust_name" yaml:"rust_name"`
	CppName  string `json:"cpp_name" yaml:"cpp_name"`
	Origin   string `json:"origin" yaml:"origin"`
}

// CLIQualified is the result of qualifying one type expression.
type CLIQualified struct {
	Input     string `json:"input" yaml:"input"`
	Qualified string `json:"qualified" yaml:"qualified"`
	Unsafe    bool   `json:"unsafe" yaml:"unsafe"`
}

// CLISource is the assembled output of one file.
type CLISource struct {
	File   string `json:"file" yaml:"file"`
	Source string `json:"source" yaml:"source"`
}
