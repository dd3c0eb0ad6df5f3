// Package surya wraps the surya-page-ocr command-line tool for local
// text extraction from page PDFs.
package surya
