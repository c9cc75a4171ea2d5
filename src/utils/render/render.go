package render

import (
	"bytes"
	"fmt"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"server/src/utils"
)

// PieChartHTML renders a pie chart of the given name/value pairs as a
// self-contained HTML fragment.
func PieChartHTML(title string, data map[string]float64) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))

	items := make([]opts.PieData, 0, len(data))
	i := 0
	for k, v := range data {
		items = append(items, opts.PieData{
			Name:      k,
			Value:     v,
			ItemStyle: &opts.ItemStyle{Color: utils.GetChartColor(i)},
		})
		i++
	}
	pie.AddSeries("Categories", items)

	var buffer bytes.Buffer
	if err := pie.Render(&buffer); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// BarChartHTML renders a bar chart of the given name/value pairs as a
// self-contained HTML fragment.
func BarChartHTML(title string, labels []string, values []float64) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))

	items := make([]opts.BarData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.BarData{Value: v})
	}
	bar.SetXAxis(labels).AddSeries("Values", items)

	var buffer bytes.Buffer
	if err := bar.Render(&buffer); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// GeneratePDF generates a PDF from an array of HTML strings.
func GeneratePDF(htmlContents []string) (*bytes.Buffer, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	for _, html := range htmlContents {
		page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(html)))
		pdfg.AddPage(page)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	err = pdfg.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}
