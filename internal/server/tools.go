package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// coordinateProperty is the schema of an [x, y] pair.
func coordinateProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "number"},
		"minItems":    2,
		"maxItems":    2,
		"description": description,
	}
}

// georefProperties are shared by every tool that places a raster on the
// ground.
func georefProperties() map[string]interface{} {
	return map[string]interface{}{
		"top_left":     coordinateProperty("[x, y] of the top-left corner of the raster: [longitude, latitude] for WGS84, [easting, northing] for projected systems"),
		"bottom_right": coordinateProperty("[x, y] of the bottom-right corner of the raster"),
		"source_crs": map[string]interface{}{
			"type":        "string",
			"description": "Reference system of the corners: EPSG:<code>, WGS84 or WKT. Supported: EPSG:4326, EPSG:3857, UTM zones EPSG:326xx/327xx. Default EPSG:4326",
			"default":     "EPSG:4326",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load a tile, mosaic or georeferenced raster and return its dimensions, format and number of foreground pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file. Use it on the original scene to size a merge canvas.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Tiling and Merging
		{
			Name:        "tiles_split",
			Description: "Cut a large image into overlapping tiles named <prefix>_<x>_<y>.png, then delete tiles smaller than min_file_size bytes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image to split",
					},
					"out_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write tiles into",
					},
					"tile_width": map[string]interface{}{
						"type":        "integer",
						"description": "Tile width in pixels. Default 256",
						"default":     256,
					},
					"tile_height": map[string]interface{}{
						"type":        "integer",
						"description": "Tile height in pixels. Default 256",
						"default":     256,
					},
					"stride_x": map[string]interface{}{
						"type":        "integer",
						"description": "Horizontal step between tiles. Default half the tile width",
					},
					"stride_y": map[string]interface{}{
						"type":        "integer",
						"description": "Vertical step between tiles. Default half the tile height",
					},
					"pad": map[string]interface{}{
						"type":        "boolean",
						"description": "Pad edge tiles to the full tile size. Default false",
						"default":     false,
					},
					"prefix": map[string]interface{}{
						"type":        "string",
						"description": "Tile name prefix. Default 'tile'",
						"default":     "tile",
					},
					"min_file_size": map[string]interface{}{
						"type":        "integer",
						"description": "Delete tiles smaller than this many bytes. Default 6496; 0 keeps every tile",
						"default":     6496,
					},
				},
				"required": []string{"path", "out_dir"},
			},
		},
		{
			Name:        "mosaic_merge",
			Description: "Merge classification tiles named <prefix>_<col>_<row> into one mask. Tiles are applied in grid order and only fill background pixels. Writes an RGBA PNG and reports skipped tiles.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tiles_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory holding the tiles (.png, .jpg, .gif, .tif or .npy)",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Path of the mosaic PNG to write",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas height in pixels",
					},
					"reference": map[string]interface{}{
						"type":        "string",
						"description": "Image whose size is used when width and height are not given",
					},
					"failure_log": map[string]interface{}{
						"type":        "string",
						"description": "Optional path of a text file listing skipped tile identifiers",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Number of goroutines for the merge. Default 1",
						"default":     1,
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "When set, clean each tile first: threshold at this level (0-1), clear border regions and drop regions below min_object_size",
					},
					"min_object_size": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest region kept when cleaning tiles, in pixels. Default 2400",
						"default":     2400,
					},
				},
				"required": []string{"tiles_dir", "output"},
			},
		},

		// Georeferencing
		{
			Name:        "geo_affine",
			Description: "Build the north-up pixel-to-ground transform for a raster from its corner coordinates. Returns the GDAL-ordered coefficients and the ground area of one pixel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(georefProperties(), map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Raster width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Raster height in pixels",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Image whose size is used when width and height are not given",
					},
				}),
				"required": []string{"top_left", "bottom_right"},
			},
		},
		{
			Name:        "geo_pixel_to_geo",
			Description: "Convert pixel coordinates to WGS84 latitude/longitude using a GDAL-ordered transform and a source reference system.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"transform": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    6,
						"maxItems":    6,
						"description": "[origin_x, scale_x, shear_x, origin_y, shear_y, scale_y] as returned by geo_affine",
					},
					"source_crs": map[string]interface{}{
						"type":        "string",
						"description": "Reference system of the transform output. Default EPSG:4326",
						"default":     "EPSG:4326",
					},
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Pixel positions to convert",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number", "description": "Column"},
								"y": map[string]interface{}{"type": "number", "description": "Row"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"transform", "points"},
			},
		},
		{
			Name:        "mosaic_georeference",
			Description: "Write a mosaic as a georeferenced raster: <base>.tif with a <base>.tfw world file and a <base>.prj projection file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(georefProperties(), map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the mosaic image",
					},
					"out_dir": map[string]interface{}{
						"type":        "string",
						"description": "Output directory. Default: the directory of path",
					},
					"base": map[string]interface{}{
						"type":        "string",
						"description": "Output file name without extension. Default: <name>_georef",
					},
				}),
				"required": []string{"path", "top_left", "bottom_right"},
			},
		},

		// Measurement
		{
			Name:        "objects_measure",
			Description: "Find every object in a mosaic mask and measure its pixel area, ground area and WGS84 centroid. A georeferenced .tif carries its own transform; other images need corners.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(georefProperties(), map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the mosaic or georeferenced raster",
					},
					"csv": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the report as CSV",
					},
					"geojson": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the report as GeoJSON",
					},
					"outlines": map[string]interface{}{
						"type":        "boolean",
						"description": "Use object outlines instead of centroids as GeoJSON geometry. Default false",
						"default":     false,
					},
					"labeled": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the mosaic with numbered bounding boxes",
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for the boxes. Default: one colour per object",
					},
				}),
				"required": []string{"path"},
			},
		},

		// Pipeline
		{
			Name:        "pipeline_run",
			Description: "Run the full merge, georeference and measure pipeline from a YAML configuration file. A reference-system failure still returns the mosaic results together with the error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the YAML configuration",
					},
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "runs_list",
			Description: "List pipeline runs archived in a SQLite database, newest first, show one run, or delete one.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"database": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the run archive",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs. Default 20",
						"default":     20,
					},
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Return this run with its failures and objects instead of a list",
					},
					"delete": map[string]interface{}{
						"type":        "boolean",
						"description": "Delete run_id and everything archived with it. Default false",
						"default":     false,
					},
				},
				"required": []string{"database"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
