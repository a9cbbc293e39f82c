// Package domain models hourly air-quality observations and the cleaning,
// windowing and regression steps applied to them.
//
// # Data Source
//
// Observations follow the layout of the Beijing Multi-Site Air-Quality
// dataset (PRSA), one CSV per monitoring station, e.g.
// PRSA_Data_Shunyi_20130301-20170228.csv. Each row is one hour:
//
//	No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station
//
// Only the time fields, the pollutant column (PM2.5 by default) and four
// meteorological covariates are used:
//
//	TEMP  air temperature (°C)
//	DEWP  dew point temperature (°C)
//	PRES  air pressure (hPa)
//	WSPM  wind speed (m/s)
//
// Missing readings are "NA" in the source and math.NaN() in memory.
//
// # Cleaning
//
// Cleaning runs once per source and produces a [CleanedSeries]:
//
//  1. [Load] builds a UTC timestamp from year/month/day/hour and sorts rows.
//  2. [Repair] fills pollutant gaps by linear interpolation weighted by
//     elapsed time and forward-fills covariate gaps. Gaps with no anchor
//     (before the first or after the last reading) stay missing.
//  3. [Clip] winsorizes the repaired pollutant into [p1, p99] computed over
//     the whole series. Percentiles use linear interpolation between closest
//     ranks, h = (n-1)q.
//
// The clip bounds belong to the series, not to a window: every window of the
// same series is clamped by the same bounds.
//
// # Evaluation
//
// [Select] restricts a cleaned series to an inclusive year range without
// copying. [Summarize], [MonthlyMean] and [Evaluate] read windows only.
//
// Risk bands follow the dashboard legend:
//
//	< 35    good
//	35–75   moderate
//	> 75    unhealthy
//
// # Regression
//
// [Evaluate] fits ordinary least squares with an intercept on a seeded
// random 75/25 train/test split and reports R² and RMSE on the held-out
// rows. R² is NaN when every held-out target is identical.
package domain
