// Package exporter assembles result datasets into an in-memory .xlsx
// workbook.
//
// Sheets are written in the order given with excelize stream writers, and
// the workbook is serialized to a byte slice instead of a file:
//
//	art, err := exporter.NewAssembler(cfg.Export, logger).Assemble(
//		exporter.OutputFilename(upload.Filename, cfg.Export.FilenameSuffix),
//		[]exporter.Sheet{
//			{Name: "Original_Data", Data: all},
//			{Name: "Filtered_Results", Data: matched},
//		})
package exporter
