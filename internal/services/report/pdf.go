package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont     = "Arial"
	pdfFontSize = 10.0
	pdfLine     = 5.0
)

// renderPDF walks the markdown AST and lays it out on A4 pages
func renderPDF(md goldmark.Markdown, markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("contextlog", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfFontSize)

	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string

	bold      bool
	italic    bool
	heading   float64
	link      string
	listLevel int
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold || r.heading > 0 {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	size := pdfFontSize
	if r.heading > 0 {
		size = r.heading
	}
	r.pdf.SetFont(pdfFont, style, size)
}

func (r *pdfRenderer) write(s string) {
	s = r.translate(s)
	if r.link != "" {
		r.pdf.SetTextColor(0, 0, 200)
		r.pdf.WriteLinkString(pdfLine, s, r.link)
		r.pdf.SetTextColor(0, 0, 0)
		return
	}
	r.pdf.Write(pdfLine, s)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.heading = headingSize(node.Level)
		} else {
			r.heading = 0
			r.pdf.Ln(8)
		}
		r.setFont()

	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}

	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
			if node.HardLineBreak() {
				r.pdf.Ln(pdfLine)
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()

	case *ast.Link:
		if entering {
			r.link = string(node.Destination)
		} else {
			r.link = ""
		}

	case *ast.AutoLink:
		if entering {
			url := string(node.URL(r.source))
			r.link = url
			r.write(url)
			r.link = ""
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", pdfFontSize)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					r.write(string(t.Segment.Value(r.source)))
				}
			}
			r.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(7)
			}
		}

	case *ast.ListItem:
		if entering {
			if r.pdf.GetX() > 16 {
				r.pdf.Ln(pdfLine)
			}
			r.pdf.SetX(15 + float64(r.listLevel-1)*5)
			r.pdf.Write(pdfLine, "- ")
		}

	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 13
	case 3:
		return 11
	default:
		return pdfFontSize
	}
}

func (r *pdfRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 9)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, pdfLine, r.translate(string(line.Value(r.source))), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.setFont()
	r.pdf.Ln(2)
}

// table lays out cells in equal-width columns
func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.translate(plainText(cell, r.source)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	width := 180.0 / float64(len(rows[0]))
	r.pdf.Ln(2)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(pdfFont, style, 9)
		for _, cell := range row {
			r.pdf.CellFormat(width, 6, cell, "1", 0, "L", false, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.setFont()
	r.pdf.Ln(3)
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
