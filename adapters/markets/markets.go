// Package markets loads per-market tax and markup profiles from HCL files.
//
//	home = "it"
//
//	market "de" {
//	  tax_rate = 0.19
//	  markup   = 1.05
//	}
//
// Markets absent from the file keep their built-in values.
package markets

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"crossmarket/core/pricing"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "home"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "market", LabelNames: []string{"code"}},
	},
}

type marketBody struct {
	TaxRate *float64 `hcl:"tax_rate,optional"`
	Markup  *float64 `hcl:"markup,optional"`
}

// Load reads and parses a profile file
func Load(path string) (*pricing.Profiles, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("failed to read market profiles", err).WithContext("path", path)
	}
	return Parse(src, path)
}

// Parse decodes HCL source on top of the default profiles
func Parse(src []byte, filename string) (*pricing.Profiles, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(diags, filename)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diagError(diags, filename)
	}

	defaults := pricing.DefaultProfiles()
	home := defaults.Home()
	tax := make(map[types.Market]float64)
	markup := make(map[types.Market]float64)
	for _, m := range types.Markets() {
		tax[m] = defaults.TaxRate(m)
		markup[m] = defaults.Markup(m)
	}

	if attr, ok := content.Attributes["home"]; ok {
		var code string
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &code); diags.HasErrors() {
			return nil, diagError(diags, filename)
		}
		m, ok := types.ParseMarket(code)
		if !ok {
			return nil, errors.Newf(errors.TypeConfig, "unknown home market %q", code).
				WithContext("file", filename).
				WithContext("line", attr.Range.Start.Line)
		}
		home = m
	}

	seen := make(map[types.Market]bool)
	for _, block := range content.Blocks {
		code := block.Labels[0]
		m, ok := types.ParseMarket(code)
		if !ok {
			return nil, errors.Newf(errors.TypeConfig, "unknown market %q", code).
				WithContext("file", filename).
				WithContext("line", block.DefRange.Start.Line)
		}
		if seen[m] {
			return nil, errors.Newf(errors.TypeConfig, "duplicate market block %q", code).
				WithContext("file", filename).
				WithContext("line", block.DefRange.Start.Line)
		}
		seen[m] = true

		var body marketBody
		if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
			return nil, diagError(diags, filename)
		}
		if body.TaxRate != nil {
			tax[m] = *body.TaxRate
		}
		if body.Markup != nil {
			markup[m] = *body.Markup
		}
	}

	p, err := pricing.NewProfiles(home, tax, markup)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, e.WithContext("file", filename)
		}
		return nil, err
	}
	return p, nil
}

// Render writes profiles back out in the file format, markets in fixed order
func Render(p *pricing.Profiles) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("home", cty.StringVal(p.Home().String()))
	for _, m := range types.Markets() {
		body.AppendNewline()
		block := body.AppendNewBlock("market", []string{m.String()})
		block.Body().SetAttributeValue("tax_rate", cty.NumberFloatVal(p.TaxRate(m)))
		block.Body().SetAttributeValue("markup", cty.NumberFloatVal(p.Markup(m)))
	}
	return f.Bytes()
}

func diagError(diags hcl.Diagnostics, filename string) error {
	e := errors.New(errors.TypeConfig, "invalid market profiles: "+diags.Error()).WithContext("file", filename)
	for _, d := range diags {
		if d.Severity == hcl.DiagError && d.Subject != nil {
			e = e.WithContext("line", d.Subject.Start.Line)
			break
		}
	}
	return e
}
